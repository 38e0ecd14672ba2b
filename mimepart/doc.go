// Package mimepart builds multipart/form-data request bodies from
// named fields and file parts without materializing the whole body in
// memory.
//
//	b := mimepart.NewBuilder()
//	_ = b.AddField("kind", "upload")
//	_ = b.AddFile("data", "blob.bin", "application/octet-stream", f)
//
//	body, err := b.Build()
//	// use body as a streaming request body:
//	//   request.WithBodyStream(body, -1)
//	//   request.WithContentType(body.ContentType())
//
// The produced [Body] generates boundary, part headers, and part
// content incrementally as it is read, so large file parts stream
// straight from their source. A Body is single-use: reading it again
// after exhaustion fails with [ErrBodyAlreadyConsumed] unless
// [Body.Rewind] re-arms it, which requires every file source to be
// seekable.
package mimepart
