package ir

// Version is the fragwatch release. It is reported by the CLI.
const Version = "0.1.0"
