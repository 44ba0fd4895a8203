// Package semtransform hosts per-record transformations on NATS.
//
// A record is a keyed, timestamped value with ordered headers, carried over
// NATS as a JSON envelope with the headers in the message header. Two
// transformations are provided:
//
//   - header_filter drops a record when it carries a named header, or with
//     isNegate set, when it lacks one.
//   - field_router moves a scalar body field, addressed by a dotted path, to
//     a new top-level field or to a header. The value can be rewritten with a
//     regular expression on the way.
//
// Transformations never mutate their input and are safe for concurrent use.
// A transformation that cannot apply (no body, missing field, nested value)
// returns the record unchanged.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│   cmd/semtransform (run, apply)     │  CLI, config, shutdown
//	└─────────────────────────────────────┘
//	           ↓ creates via componentregistry
//	┌─────────────────────────────────────┐
//	│  processor/header_filter            │  Config, schema, factory
//	│  processor/field_router             │
//	└─────────────────────────────────────┘
//	           ↓ hosted by
//	┌─────────────────────────────────────┐
//	│  processor/recordproc               │  Subscribe, worker pool,
//	│                                     │  publish with retry, metrics
//	└─────────────────────────────────────┘
//	           ↓ applies
//	┌─────────────────────────────────────┐
//	│  transform  ·  record               │  Pure record logic, codec
//	└─────────────────────────────────────┘
//
// # Packages
//
//   - record: Record, Headers and the JSON/NATS codec
//   - transform: HeaderFilter, FieldRouter, Chain and Properties parsing
//   - processor/recordproc: NATS hosting for any transform.Transformation
//   - processor/header_filter, processor/field_router: component factories
//   - component: registry, ports, config schemas and lifecycle interfaces
//   - config: layered JSON/YAML loader with environment overrides
//   - natsclient: connection manager with circuit breaker
//   - metric: Prometheus registry and metrics server
//   - errors: classified errors (transient, invalid, fatal) and retry
//   - pkg/worker, pkg/retry, pkg/timestamp: supporting utilities
//
// # Quick Start
//
//	semtransform run --config semtransform.yaml
//
// with a configuration such as:
//
//	platform:
//	  org: c360
//	  id: edge-1
//	nats:
//	  urls: ["nats://localhost:4222"]
//	components:
//	  strip-debug:
//	    type: processor
//	    name: header_filter
//	    enabled: true
//	    config:
//	      headerKey: x-debug
//	      ports:
//	        inputs:  [{name: in,  type: nats, subject: logs.raw}]
//	        outputs: [{name: out, type: nats, subject: logs.clean}]
//
// Records can also be transformed offline:
//
//	semtransform apply -t field_router --set sourceKey=user.id --set destKey=userId < records.ndjson
package semtransform
