// Package archive persists sealed sessions and merged datasets as Parquet
// files, one row per (channel, component, timestamp). Files are the query
// surface for the DuckDB SQL service and the durable form of a session once
// its journal segments are retired.
package archive
