package main

// @title           Sercha Catalog API
// @version         1.0
// @description     Storefront search API over a hosted search index. Search, sorted replicas, record writes and full-index exports.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-catalog/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// envFile is loaded before the environment is read; a missing file is ignored
var envFile string

var rootCmd = &cobra.Command{
	Use:          "sercha-catalog",
	Short:        "Storefront search API and export worker over a hosted search index",
	Version:      version,
	SilenceUsage: true,
	RunE:         runAll,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd, workerCmd, allCmd, exportCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("sercha-catalog: %v", err)
		os.Exit(1)
	}
}
