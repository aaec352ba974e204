package config

// this holds the resolved configuration values from CLI
var (
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules, empty means no filtering
	BoardFile         string // path to the leaderboard csv file
	SegmentName       string // name of the shared memory segment
	LayoutFile        string // optional yaml file overriding the record layout
	PollInterval      string // duration between two ticks
	Player            string // player receiving the telemetry
	SharedBestLap     bool   // one best lap for all players
	Autosave          bool   // save the board file whenever a record changed
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry, "stdout" for local output
)

const DefaultBoardFile = "leaderboard.csv"
