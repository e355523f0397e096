/*
Package node implements the BrokerNode side of the protocol: it
registers BrokerTask implementations with a broker over a
pkg/adapter.NodeAdapter, and on every Tick drains pending inputs and
execute instructions, runs each task's OnExecute, and writes its
outputs and a completion ack back.
*/
package node
