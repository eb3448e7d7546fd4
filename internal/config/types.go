package config

// Config is the top-level configuration structure parsed from gamesmith YAML.
type Config struct {
	Workflow Workflow `yaml:"workflow"`
}

// Workflow defines the full run configuration: agent, game, QA, approvals,
// publish, and housekeeping settings.
type Workflow struct {
	Name      string    `yaml:"name"`
	StateDir  string    `yaml:"state_dir"` // defaults to ~/.gamesmith/runs
	DBPath    string    `yaml:"db_path"`   // defaults to ~/.gamesmith/gamesmith.db
	LogLevel  string    `yaml:"log_level"` // defaults to "info"
	LogFile   string    `yaml:"log_file"`  // optional; enables rotated file logging
	KeepRuns  int       `yaml:"keep_runs"` // retention for cleanup; defaults to 20
	Agent     Agent     `yaml:"agent"`
	Game      Game      `yaml:"game"`
	QA        QA        `yaml:"qa"`
	Approvals Approvals `yaml:"approvals"`
	Publish   Publish   `yaml:"publish"`
}

// Agent configures the coding-agent CLI invoked for the design and build
// phases.
type Agent struct {
	Command      string   `yaml:"command"` // e.g. "claude"
	Model        string   `yaml:"model"`
	Flags        []string `yaml:"flags"`
	AllowedTools []string `yaml:"allowed_tools"` // side-effecting capabilities granted to the agent
	Timeout      string   `yaml:"timeout"`       // per-phase; defaults to "30m"
}

// Game configures the build directory and engine.
type Game struct {
	Dir    string `yaml:"dir"`
	Engine string `yaml:"engine"` // e.g. "phaser"
}

// QA configures the dev server and browser harness.
type QA struct {
	ServerCommand  string   `yaml:"server_command"`  // defaults to "npm"
	ServerArgs     []string `yaml:"server_args"`     // defaults to ["run", "dev"]
	Port           int      `yaml:"port"`            // defaults to 3000
	StartupTimeout string   `yaml:"startup_timeout"` // defaults to "60s"
	IgnoreConsole  []string `yaml:"ignore_console"`  // extra console ignore-list substrings
	ReworkOnFail   bool     `yaml:"rework_on_fail"`  // loop qa→build once before failing
	SkipPerf       bool     `yaml:"skip_perf"`
}

// Approvals configures human approval gates.
type Approvals struct {
	Gates       []string `yaml:"gates"`   // phases requiring approval before they run
	Timeout     string   `yaml:"timeout"` // defaults to "1h"
	AutoApprove bool     `yaml:"auto_approve"`
}

// Publish configures the itch.io upload target.
type Publish struct {
	Target    string `yaml:"target"`      // "user/game"
	Channel   string `yaml:"channel"`     // e.g. "html5"
	APIKeyEnv string `yaml:"api_key_env"` // env var holding the itch.io API key
}
