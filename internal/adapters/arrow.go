package adapters

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

// fromArrowSchema maps an Arrow schema to the engine column model.
func fromArrowSchema(schema *arrow.Schema) (*dataset.Schema, error) {
	fields := make([]dataset.Field, len(schema.Fields()))
	for i, f := range schema.Fields() {
		fields[i] = dataset.Field{
			Name:     f.Name,
			Type:     fromArrowType(f.Type),
			Nullable: f.Nullable,
		}
	}
	return dataset.NewSchema(fields...)
}

func fromArrowType(t arrow.DataType) dataset.LogicalType {
	switch t.ID() {
	case arrow.BOOL:
		return dataset.TypeBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return dataset.TypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return dataset.TypeFloat
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return dataset.TypeBytes
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return dataset.TypeTimestamp
	default:
		return dataset.TypeString
	}
}

// recordIterator adapts an Arrow record stream to the engine's row iterator.
type recordIterator struct {
	rr     array.RecordReader
	closer func()

	rec arrow.Record
	pos int
	err error
}

func newRecordIterator(rr array.RecordReader, closer func()) *recordIterator {
	return &recordIterator{rr: rr, closer: closer, pos: -1}
}

func (it *recordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.pos++
	for it.rec == nil || it.pos >= int(it.rec.NumRows()) {
		if !it.rr.Next() {
			it.err = it.rr.Err()
			return false
		}
		it.rec = it.rr.Record()
		it.pos = 0
	}
	return true
}

func (it *recordIterator) Row() dataset.Row {
	row := make(dataset.Row, it.rec.NumCols())
	for j := range row {
		row[j] = arrowValue(it.rec.Column(j), it.pos)
	}
	return row
}

func (it *recordIterator) Err() error { return it.err }

func (it *recordIterator) Close() error {
	it.closer()
	return nil
}

// arrowValue extracts one cell as an engine value. Integers widen to int64,
// floats to float64, temporal values become time.Time.
func arrowValue(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}
	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(i)
	case *array.Int8:
		return int64(arr.Value(i))
	case *array.Int16:
		return int64(arr.Value(i))
	case *array.Int32:
		return int64(arr.Value(i))
	case *array.Int64:
		return arr.Value(i)
	case *array.Uint8:
		return int64(arr.Value(i))
	case *array.Uint16:
		return int64(arr.Value(i))
	case *array.Uint32:
		return int64(arr.Value(i))
	case *array.Uint64:
		return int64(arr.Value(i))
	case *array.Float32:
		return float64(arr.Value(i))
	case *array.Float64:
		return arr.Value(i)
	case *array.String:
		return arr.Value(i)
	case *array.LargeString:
		return arr.Value(i)
	case *array.Binary:
		return append([]byte(nil), arr.Value(i)...)
	case *array.LargeBinary:
		return append([]byte(nil), arr.Value(i)...)
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(i).ToTime(unit)
	case *array.Date32:
		return arr.Value(i).ToTime()
	case *array.Date64:
		return arr.Value(i).ToTime()
	default:
		return col.ValueStr(i)
	}
}
