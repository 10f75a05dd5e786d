package balcao

// Version is the release version. Overridable at build time:
//
//	go build -ldflags "-X github.com/aretw0/balcao.Version=v1.2.3"
var Version = "0.1.0"
