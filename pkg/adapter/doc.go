/*
Package adapter implements BrokerAdapter, the duplex message channel
between a broker and a node. All receive operations are
non-blocking: a receive call that finds nothing available returns a
zero value and ok=false rather than blocking. Sends may block until
the queue or connection accepts the message.

Two concrete adapters are provided:

  - Channel: paired in-process queues, for tests and co-located nodes.
  - TCP: a length-delimited, self-describing framed stream, for nodes
    running in a separate process.
*/
package adapter
