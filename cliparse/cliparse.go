package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string
	APIURL   string

	UserToken  string
	LeadToken  string
	AdminToken string

	StoreType   string
	DatabaseURL string

	VoteTimeoutSec int
	WarnBeforeSec  int
	VoteScale      []string

	JiraURL          string
	JiraUsername     string
	JiraAPIToken     string
	StoryPointsField string
}

// ParseFlags validates flags, falling back to environment variables. A
// .env file in the working directory is loaded first if present.
func ParseFlags(args []string) (Config, error) {
	// Best effort; absence of a .env file is not an error
	_ = godotenv.Load()

	var cfg Config
	var scale string

	fs := flag.NewFlagSet("pokerbot", flag.ContinueOnError)

	fs.StringVar(&cfg.BotToken, "token", "", "Telegram bot token (prefer env)")
	fs.StringVar(&cfg.APIURL, "api-url", "", "Bot API base URL override")

	// Role tokens (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.UserToken, "user-token", "", "Participant join token (prefer env)")
	fs.StringVar(&cfg.LeadToken, "lead-token", "", "Lead join token (prefer env)")
	fs.StringVar(&cfg.AdminToken, "admin-token", "", "Admin join token (prefer env)")

	fs.StringVar(&cfg.StoreType, "t", "", "Store type (memory, sqlite or postgres)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")

	fs.IntVar(&cfg.VoteTimeoutSec, "vote-timeout", 0, "Voting round timeout in seconds")
	fs.IntVar(&cfg.WarnBeforeSec, "warn-before", 0, "Warning lead time in seconds")
	fs.StringVar(&scale, "scale", "", "Comma-separated vote scale")

	fs.StringVar(&cfg.JiraURL, "jira-url", "", "Jira base URL (optional)")
	fs.StringVar(&cfg.JiraUsername, "jira-user", "", "Jira username (prefer env)")
	fs.StringVar(&cfg.JiraAPIToken, "jira-token", "", "Jira API token (prefer env)")
	fs.StringVar(&cfg.StoryPointsField, "points-field", "", "Jira story points custom field ID")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.BotToken == "" {
		cfg.BotToken = os.Getenv("BOT_TOKEN")
	}
	if cfg.BotToken == "" {
		return Config{}, errors.New("bot token required (use -token or BOT_TOKEN env)")
	}

	if cfg.UserToken == "" {
		cfg.UserToken = os.Getenv("USER_TOKEN")
	}
	if cfg.LeadToken == "" {
		cfg.LeadToken = os.Getenv("LEAD_TOKEN")
	}
	if cfg.AdminToken == "" {
		cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	}
	if cfg.UserToken == "" && cfg.LeadToken == "" && cfg.AdminToken == "" {
		return Config{}, errors.New("at least one join token required (USER_TOKEN, LEAD_TOKEN or ADMIN_TOKEN)")
	}

	if cfg.StoreType == "" {
		cfg.StoreType = os.Getenv("STORE_TYPE")
		if cfg.StoreType == "" {
			cfg.StoreType = "sqlite"
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && cfg.StoreType != "memory" {
		if cfg.StoreType == "sqlite" {
			cfg.DatabaseURL = "file:pokerbot.db" // default
		} else {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
	}

	if cfg.VoteTimeoutSec == 0 {
		if v := os.Getenv("VOTE_TIMEOUT"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, errors.New("invalid VOTE_TIMEOUT env variable")
			}
			cfg.VoteTimeoutSec = n
		}
	}
	if cfg.WarnBeforeSec == 0 {
		if v := os.Getenv("WARN_BEFORE"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, errors.New("invalid WARN_BEFORE env variable")
			}
			cfg.WarnBeforeSec = n
		}
	}

	if scale == "" {
		scale = os.Getenv("VOTE_SCALE")
	}
	if scale != "" {
		for _, v := range strings.Split(scale, ",") {
			if v = strings.TrimSpace(v); v != "" {
				cfg.VoteScale = append(cfg.VoteScale, v)
			}
		}
	}

	if cfg.JiraURL == "" {
		cfg.JiraURL = os.Getenv("JIRA_URL")
	}
	if cfg.JiraUsername == "" {
		cfg.JiraUsername = os.Getenv("JIRA_USERNAME")
	}
	if cfg.JiraAPIToken == "" {
		cfg.JiraAPIToken = os.Getenv("JIRA_API_TOKEN")
	}
	if cfg.StoryPointsField == "" {
		cfg.StoryPointsField = os.Getenv("STORY_POINTS_FIELD")
		if cfg.StoryPointsField == "" {
			cfg.StoryPointsField = "customfield_10022"
		}
	}
	if cfg.JiraURL != "" && (cfg.JiraUsername == "" || cfg.JiraAPIToken == "") {
		return Config{}, errors.New("JIRA_USERNAME and JIRA_API_TOKEN required when JIRA_URL is set")
	}

	return cfg, nil
}
