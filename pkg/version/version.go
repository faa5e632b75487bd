package version

// Version is the current version of openshelf. It is overridden at build
// time with ldflags.
var Version = "dev"
