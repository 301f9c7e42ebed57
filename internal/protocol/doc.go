// Package protocol implements the HTTP/1.1 subset spoken by the server:
// parsing a single request from a connection and serializing a single
// status-lined response back onto it.
//
// Supported on the request side:
//
//   - request line "METHOD SP PATH SP VERSION", methods GET, POST, PUT,
//     PATCH, DELETE and OPTIONS
//   - "key: value" header lines, keys lower-cased, split on the first colon
//   - a body of exactly content-length bytes
//
// ReadRequestWithLimits caps the bytes buffered for the request line and
// headers together, and for the body; ReadRequest uses DefaultLimits.
//
// Chunked bodies, header folding and keep-alive are not supported.
package protocol
