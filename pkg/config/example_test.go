package config_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/tabula/pkg/config"
)

// ExampleDefault demonstrates the default configuration.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Log Level: %s\n", cfg.Logging.Level)
	fmt.Printf("Compression: %s\n", cfg.IO.Compression)
	fmt.Printf("Sample Rate: %.1f\n", cfg.Observability.TracingSampleRate)

	// Output:
	// Log Level: info
	// Compression: auto
	// Sample Rate: 1.0
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.IO.SkipLines = 2
	cfg.IO.Compression = "zstd"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Configuration is valid!")

	cfg.IO.Compression = "brotli"
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid!
	// io.compression "brotli" is not supported
}

// ExampleParse decodes YAML on top of the defaults.
func ExampleParse() {
	cfg, err := config.Parse([]byte(`
io:
  skip_lines: 1
  compression: gzip
`))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Skip Lines: %d\n", cfg.IO.SkipLines)
	fmt.Printf("Compression: %s\n", cfg.IO.Compression)
	fmt.Printf("Log Level: %s\n", cfg.Logging.Level)

	// Output:
	// Skip Lines: 1
	// Compression: gzip
	// Log Level: info
}
