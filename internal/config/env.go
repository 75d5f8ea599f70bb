package config

import (
	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory into the environment.
// Variables that are already set win. The error satisfies os.IsNotExist when
// there is no .env file.
func LoadEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}
