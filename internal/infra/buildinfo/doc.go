// Package buildinfo exposes version information of magma binaries.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/Pluto-lin/magma/internal/infra/buildinfo.Version=v1.0.0"
//
// Fields left unset fall back to the module build info embedded by the
// Go toolchain.
package buildinfo
