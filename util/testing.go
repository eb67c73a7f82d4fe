package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bytedance/sonic"
)

// testConfigJSON rejects invalid UTF-8 in config values.
var testConfigJSON = sonic.Config{
	ValidateString: true,
}.Froze()

// ReadTestConfig reads a flat JSON object of test settings. A missing file is not
// an error, it yields an empty config.
func ReadTestConfig(testConfigFile string) (map[string]string, error) {
	config := map[string]string{}

	data, err := os.ReadFile(testConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s file could not be read: %w", testConfigFile, err)
	}

	err = testConfigJSON.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("%s file json parsing error: %w", testConfigFile, err)
	}

	return config, nil
}
