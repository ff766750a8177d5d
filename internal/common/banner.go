package common

import (
	"fmt"

	"github.com/ternarybob/banner"
)

// PrintBanner prints the startup banner with the endpoints the dashboard talks to.
func PrintBanner(config *Config) {
	b := banner.New().SetStyle(banner.StyleDouble).SetBold(true)
	b.PrintTopLine()
	b.PrintCenteredText("Prinde")
	b.PrintCenteredText("job monitoring dashboard " + GetVersion())
	b.PrintSeparatorLine()
	b.PrintKeyValue("Listening", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port), 12)
	b.PrintKeyValue("Events", config.EventSource.URL, 12)
	b.PrintKeyValue("Engine API", config.Gateway.BaseURL, 12)
	if config.Metrics.Enabled {
		b.PrintKeyValue("Metrics", config.Metrics.Path, 12)
	}
	b.PrintBottomLine()
}
