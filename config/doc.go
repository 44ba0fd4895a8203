// Package config loads the semtransform platform configuration.
//
// A Loader reads one or more layers from JSON or YAML files, deep-merges them
// over built-in defaults and applies SEMTRANSFORM_ environment overrides:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/production.json") // overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// Components are keyed by instance name. Each entry carries the component
// type, the factory name and the raw factory configuration:
//
//	components:
//	  strip-debug:
//	    type: processor
//	    name: header_filter
//	    enabled: true
//	    config:
//	      headerKey: x-debug
//	      ports:
//	        inputs:  [{name: in,  subject: records.raw}]
//	        outputs: [{name: out, subject: records.clean}]
//
// Duration fields accept Go duration strings ("2s", "500ms") as well as
// integer nanoseconds.
//
// Files are read with size, nesting depth and file-type checks before they
// are decoded.
package config
