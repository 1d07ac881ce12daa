package dlttoolkit

import (
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the ambient settings of the dltanalyzer binary: defaults,
// overridden by an optional config file and by DLTANALYZER_* environment
// variables. The dltwriter binary does not read it.
type Config struct {
	Workers      int  // parallelism for the parallel driver; 0 means auto-detect
	MetricsPort  int  // 0 disables the /metrics endpoint
	ProfilePort  int  // 0 disables the pprof endpoint
	Debug        bool
}

// ReadConfig loads optional YAML configuration from the usual search
// path and layers environment variables on top, mirroring the shoveler
// tooling's config.ReadConfig convention. A missing config file is not
// an error here -- every setting has a workable default.
func (c *Config) ReadConfig() {
	viper.SetConfigName("dltanalyzer")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/dltoolkit/")
	viper.AddConfigPath("$HOME/.dltoolkit")
	viper.AddConfigPath(".")
	viper.AddConfigPath("config/")

	if err := viper.ReadInConfig(); err != nil {
		log.Debugln("no config file found, using defaults:", err)
	}

	viper.SetEnvPrefix("dltanalyzer")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("workers", 0)
	viper.SetDefault("metrics.port", 0)
	viper.SetDefault("profile.port", 0)
	viper.SetDefault("debug", false)

	c.Workers = viper.GetInt("workers")
	c.MetricsPort = viper.GetInt("metrics.port")
	c.ProfilePort = viper.GetInt("profile.port")
	c.Debug = viper.GetBool("debug")
}

// ResolvedWorkers returns the configured worker count, falling back to
// the platform's available parallelism per spec.md section 6.
func (c *Config) ResolvedWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
