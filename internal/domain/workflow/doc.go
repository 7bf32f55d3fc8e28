// Package workflow holds the order status state machine.
//
// The forward path is novo -> aceito -> producao -> entrega -> finalizado and
// cancelado is reachable from every non-terminal status. Functions in this
// package are pure: an illegal request is reported through a false result and
// never through a panic or an error value.
//
// The staff board shows aceito and producao as a single "preparo" stage. The
// stage helpers translate column drops into concrete statuses.
package workflow
