// Package recordproc hosts a transform.Transformation on NATS.
//
// A Processor subscribes to the subjects of its input ports, decodes every
// message into a record.Record, applies the transformation on a worker pool
// and publishes surviving records, headers included, to every output subject.
// Dropped records are counted and not published.
//
// Messages are handled concurrently, so records may leave in a different
// order than they arrived. Publish failures that are transient (connection
// loss, an open circuit breaker) are retried with backoff before the record
// is counted as an error.
//
// The header_filter and field_router processor packages build their
// transformation from configuration and hand it to New:
//
//	t, err := transform.NewHeaderFilter(transform.FilterConfig{HeaderKey: "x-debug"})
//	if err != nil {
//		return nil, err
//	}
//	return recordproc.New(recordproc.Settings{
//		Kind:  "header_filter",
//		Ports: *cfg.Ports,
//	}, t, deps)
//
// Metrics are exported under semtransform_recordproc_* with a component label
// carrying the instance name.
package recordproc
