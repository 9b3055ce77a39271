package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stock Alert Engine Configuration

[engine]
# Path to the SQLite database
# db_path = "~/.config/stockalert/stockalert.db"
# Daily rows kept per symbol fetch (most recent N trading days)
daily_window = 7
# Historical price retention horizon in years
retention_years = 10
# Delay between provider calls during bulk loads (rate-limit courtesy)
inter_call_delay = "60ms"

[market]
# Exchange-local timezone and session window used for gating
timezone = "America/New_York"
# Minutes past local midnight: 09:30 and 16:00
open_minute = 570
close_minute = 960

[providers]
# Fallback chain; the first provider yielding usable rows wins
order = ["yahoo", "alphavantage"]

[providers.alphavantage]
# API key (or set ALPHAVANTAGE_API_KEY)
api_key = ""
base_url = "https://www.alphavantage.co"

[bootstrap]
# Bulk listing feed for the tradable-symbol universe
listing_url = "https://www.nasdaqtrader.com/dynamic/SymDir/otherlisted.txt"
# Symbols hydrated with daily history per bootstrap run
max_symbols_per_run = 25
# Exchange codes admitted from the listing
exchanges = ["N", "P", "A"]

[bulk_load]
# Symbol cap for the administrative "load all" operation
max_symbols = 300
per_symbol_timeout = "15s"

[notifications]
enabled = true

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""
`

// writeTemplate writes a starter config.toml so the user has something to
// edit. Defaults still apply when the file is absent.
func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}
