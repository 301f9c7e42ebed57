// Package router holds the route table: an exact-match mapping from
// (path, method) to a Handler. The table is built before serving starts and
// only read afterwards.
package router
