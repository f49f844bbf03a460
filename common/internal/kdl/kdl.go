package kdl

import (
	"os"

	"github.com/sblinch/kdl-go"
)

// Unmarshal decodes the KDL document at kdlPath over defaultCfg, so nodes
// missing from the file keep their default values.
func Unmarshal[T any](kdlPath string, defaultCfg T) (T, error) {
	data, err := os.ReadFile(kdlPath)
	if err != nil {
		var nilT T
		return nilT, err
	}
	return UnmarshalBytes(data, defaultCfg)
}

func UnmarshalBytes[T any](data []byte, defaultCfg T) (T, error) {
	if err := kdl.Unmarshal(data, &defaultCfg); err != nil {
		var nilT T
		return nilT, err
	}
	return defaultCfg, nil
}
