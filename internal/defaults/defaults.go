package defaults

const (
	DefaultNixBinary      = "nix"
	DefaultSystem         = "x86_64-linux"
	DefaultTimeoutSeconds = 120
	DefaultTemplatesDir   = "templates"
	DefaultSecurityMode   = "standard"
)

func GetNixBinary() string {
	return DefaultNixBinary
}

func GetSystem() string {
	return DefaultSystem
}

func GetTimeoutSeconds() int {
	return DefaultTimeoutSeconds
}

func GetTemplatesDir() string {
	return DefaultTemplatesDir
}
