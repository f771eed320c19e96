package transferdesk

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/aretw0/transferdesk.Version=...".
var Version = "dev"
