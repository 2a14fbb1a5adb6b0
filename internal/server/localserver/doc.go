// Package localserver serves the operations API on a Unix domain socket.
//
// The socket is created with mode 0600, so only the magmad user (and
// root) can reach it. Requests on the socket bypass the admin network
// allowlist.
package localserver
