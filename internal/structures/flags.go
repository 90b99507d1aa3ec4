package structures

import "net/http"

type CliFlags struct {
	ConfigPath string
	EnvFile    string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}
