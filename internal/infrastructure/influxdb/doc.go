// Package influxdb writes VisionPilot run telemetry to InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API. Points are
// batched per batch_size and flush_interval and delivered in the
// background, so a slow or absent server never stalls the caller.
// Asynchronous write failures surface through SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("visionpilot_cycle", tags, fields, time.Now())
package influxdb
