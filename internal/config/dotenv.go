package config

import "github.com/joho/godotenv"

// overloadDotenv loads a local .env file, if present, letting its values
// override any already-set OS environment variables. This keeps repo-local
// development configuration deterministic; it is a silent no-op in
// production where no .env file is deployed.
func overloadDotenv() {
	_ = godotenv.Overload()
}
