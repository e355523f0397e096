/*
Package broker implements the hub side of the scheduler: Commander
task-selection policies, BrokerTaskState bookkeeping, and the tick
loop that drives subscription evaluation, trigger checks, and
dispatch over a pkg/adapter.BrokerAdapter.
*/
package broker
