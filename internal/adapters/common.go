// Package adapters implements the SQL source adapter on top of the Arrow
// ADBC driver manager. One adapter wraps one table or query; chunk reads open
// their own connection so workers can read concurrently.
package adapters

import (
	"fmt"
	"runtime"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-adbc/go/adbc/drivermgr"
)

// driverOptions maps a driver name to the ADBC driver manager options.
// Unknown names are treated as a literal shared-library path.
func driverOptions(driver, uri string) (map[string]string, error) {
	switch driver {
	case "duckdb":
		opts := map[string]string{
			"driver":     duckdbLibrary(),
			"entrypoint": "duckdb_adbc_init",
		}
		if uri != "" {
			opts["path"] = uri
		}
		return opts, nil
	case "sqlite":
		opts := map[string]string{"driver": "adbc_driver_sqlite"}
		if uri != "" {
			opts["uri"] = uri
		}
		return opts, nil
	case "postgresql", "postgres":
		if uri == "" {
			return nil, fmt.Errorf("postgresql requires a connection uri")
		}
		return map[string]string{
			"driver": "adbc_driver_postgresql",
			"uri":    uri,
		}, nil
	case "":
		return nil, fmt.Errorf("driver is required")
	default:
		opts := map[string]string{"driver": driver}
		if uri != "" {
			opts["uri"] = uri
		}
		return opts, nil
	}
}

func duckdbLibrary() string {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/local/lib/libduckdb.dylib"
	case "windows":
		return "duckdb.dll"
	default:
		return "/usr/local/lib/libduckdb.so"
	}
}

// openDatabase builds the ADBC database handle for the given driver.
func openDatabase(driver, uri string) (adbc.Database, error) {
	opts, err := driverOptions(driver, uri)
	if err != nil {
		return nil, err
	}
	drv := drivermgr.Driver{}
	db, err := drv.NewDatabase(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ADBC database: %w", err)
	}
	return db, nil
}
