// Package storage is a small object-store abstraction used to persist search
// ledgers as blobs.
//
// Backends register themselves from init:
//
//   - storage/local: a directory on the local filesystem
//   - storage/s3: Amazon S3 and S3-compatible services
//
// Configuration:
//
//	ledger:
//	  store: s3
//	  bucket: "automl-runs"
//	  region: "eu-west-1"
package storage
