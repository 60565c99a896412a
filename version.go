package flowmanager

// Version is the release version, set at build time with
// -ldflags "-X github.com/aretw0/flowmanager.Version=...".
var Version = "dev"
