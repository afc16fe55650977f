// Package snapshot persists and restores engine state. A Manager serializes
// the path store to JSON and hands it to a pluggable Store; DiskStore keeps
// snapshots on the local filesystem and S3Store in an S3 bucket.
package snapshot
