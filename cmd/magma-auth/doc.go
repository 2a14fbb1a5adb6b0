// Package main provides the entry point for magma-auth.
//
// magma-auth checks credentials against the configured backend, computes
// verification records, loads them into the credential backend and
// inspects the user cache of a running magmad.
//
// Usage:
//
//	magma-auth -c /etc/magma/magmad.yaml check --protocol imap alice
//	magma-auth -c /etc/magma/magmad.yaml -o json hash alice < password.txt > alice.json
//	magma-auth -c /etc/magma/magmad.yaml users import alice.json
//	magma-auth -s 127.0.0.1:9125 cache show alice
package main
