package cbslweb

import (
	"net/http/cookiejar"
	"time"

	"cbslwatch-backend/lib/restyutil"
	"cbslwatch-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

// UserAgent is sent on every request. the central bank sites sit
// behind request filtering that rejects obviously non-browser clients,
// so every client spoofs a desktop browser and carries a cookie jar
// across requests.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes clients created after the call dump
// each http exchange to the output for debugging.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

type ClientOptions struct {
	// Timeout bounds each http exchange. zero means 10 seconds.
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*resty.Client, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 10
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", UserAgent)
	client.SetTimeout(timeout)

	if instrumentOutput != nil {
		restyutil.InstrumentClient(client, otel.Tracer("scrapers/cbslweb/http"), instrumentOutput)
	} else {
		telemetry.InstrumentResty(client, "scrapers/cbslweb/http")
	}

	return client, nil
}
