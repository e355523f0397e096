/*
Package adminapi is the broker's unremarkable external admin surface:
a gRPC health service on one address, plus an HTTP server on a second
address serving /health, /ready and the Prometheus /metrics endpoint.
It carries no cluster-management RPCs —
the protocol between broker and node lives entirely in
pkg/adapter/pkg/node, not here.
*/
package adminapi
