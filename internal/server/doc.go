// Package server assembles the Cliptide HTTP server.
//
// It builds a consistent middleware chain of logging, request-id
// propagation, CORS, security headers, and metrics so handlers all share
// common instrumentation, and keeps every API route behind one multiplexer.
package server
