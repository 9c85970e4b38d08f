package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Lights   LightsConfig   `mapstructure:"lights"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MonitorAddress string `mapstructure:"monitor_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LightsConfig struct {
	Address string `mapstructure:"address"`
	Enabled bool   `mapstructure:"enabled"`
}

// GameConfig holds the timing knobs consumed by the phase behaviors.
type GameConfig struct {
	DefaultGameDuration       time.Duration `mapstructure:"default_game_duration"`
	DefaultRoundQuestionDelay time.Duration `mapstructure:"round_question_delay"`
	SpeedWinnerShowTime       time.Duration `mapstructure:"speed_winner_show_time"`
	DefaultShopDuration       time.Duration `mapstructure:"shop_duration"`
	VotingDuration            time.Duration `mapstructure:"voting_duration"`
	MediaDuration             time.Duration `mapstructure:"media_duration"`
	StatsShowTime             time.Duration `mapstructure:"stats_show_time"`
	ModifiersShowTime         time.Duration `mapstructure:"modifiers_show_time"`
	ReconnectGrace            time.Duration `mapstructure:"reconnect_grace"`
	MinPlayers                int           `mapstructure:"min_players"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	setDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

func setDefaults() {
	viper.SetDefault("game.default_game_duration", "45m")
	viper.SetDefault("game.round_question_delay", "5s")
	viper.SetDefault("game.speed_winner_show_time", "6s")
	viper.SetDefault("game.shop_duration", "30s")
	viper.SetDefault("game.voting_duration", "20s")
	viper.SetDefault("game.media_duration", "15s")
	viper.SetDefault("game.stats_show_time", "10s")
	viper.SetDefault("game.modifiers_show_time", "8s")
	viper.SetDefault("game.reconnect_grace", "60s")
	viper.SetDefault("game.min_players", 2)
}
