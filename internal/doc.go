// Package cl2pd turns accelerator logging data into time-indexed tables.
//
// # Architecture
//
// The service is structured into several key packages:
//   - timerange: parsing and normalizing time bounds into wire-zone ranges
//   - table: the time-indexed table with outer joins and summaries
//   - api: logging service clients and the series fetcher
//   - database: direct SQL access to a replica of the logging tables
//   - aggregator: multi-variable queries, chunked splits and cycle stamps
//   - fills: fill and beam mode listings
//   - trim: history of control system settings
//   - matfile: MAT v5 record decoding
//   - flatfile: MAT records, Massi archives, CSV and Parquet extracts
//   - storage: local and S3 file access
//   - grpc: the TableService and its middleware
//   - config, logger: ambient configuration and structured logging
//
// Key Features
//
//   - Flexible time bounds:
//     Bounds may be date strings, epoch seconds, time values or "now".
//     All of them are normalized to the logging service's zone and
//     results are always returned in UTC.
//
//   - Table assembly:
//     Series of different variables are outer joined on their
//     timestamps; missing readings become nulls rather than errors.
//
//   - Files:
//     Records and extracts can be read from disk or from S3 buckets.
//
// Example Usage
//
//	client := grpc.NewTableServiceClient(conn)
//	req, _ := structpb.NewStruct(map[string]interface{}{
//	    "variables": []interface{}{"LHC.BCTDC.A6R4.B1:BEAM_INTENSITY"},
//	    "start":     "2018-05-01 00:00:00",
//	    "end":       "2018-05-01 01:00:00",
//	})
//	resp, err := client.QueryVariables(ctx, req)
//
// For more information about specific packages, see their respective
// documentation.
package cl2pd
