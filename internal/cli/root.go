// Package cli implements the globalcache command line.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the CLI version
const Version = "0.3.0"

var (
	// RootCmd is the base command
	RootCmd = &cobra.Command{
		Use:   "globalcache",
		Short: "inspect and maintain the shared entity cache",
		Long: fmt.Sprintf(`globalcache (v%s)

Reads and maintains the entity projections that services write to the
shared cache, on either Redis or Aerospike.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "globalcache v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.String("backend", "redis", "backend to use (redis, aerospike)")
	flags.String("namespace", "INDUSTRIAL", "key namespace")
	flags.Int("timeout", 5, "operation timeout in seconds")
	flags.Bool("breaker", false, "fail fast through a circuit breaker")
	flags.Bool("verbose", false, "development logging")
	flags.String("log-level", "warn", "minimum level of JSON logs (debug, info, warn, error)")

	flags.String("redis-addr", "", "redis address (default from REDIS_ADDR)")
	flags.String("redis-password", "", "redis password (default from REDIS_PASSWORD)")

	flags.String("aerospike-host", "", "aerospike seed host (default from AEROSPIKE_HOST)")
	flags.Int("aerospike-port", 0, "aerospike port (default from AEROSPIKE_PORT)")
	flags.String("aerospike-namespace", "", "aerospike namespace (default from AEROSPIKE_NAMESPACE)")
	flags.String("aerospike-set", "", "aerospike set (default from AEROSPIKE_SET)")
	flags.Bool("skip-udf", false, "do not register the set UDF on connect")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(pingCmd)
	RootCmd.AddCommand(entityCommands)
	RootCmd.AddCommand(setCommands)
	RootCmd.AddCommand(mapCommands)
	RootCmd.AddCommand(valueCommands)
	RootCmd.AddCommand(udfCommands)
}

// initConfig loads .env files and binds GLOBALCACHE_* environment variables
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("globalcache")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command. It is called once from main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
