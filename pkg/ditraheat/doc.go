// Package ditraheat provides a client for the Schluter DITRA-HEAT-E-WiFi
// floor thermostat cloud service.
//
// # Basic Usage
//
//	client, err := ditraheat.NewClient("me@example.com", "secret", "1234567")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	temp, err := client.Temperature(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration
//
// The client can be configured using functional options:
//
//	client, err := ditraheat.NewClient(email, password, serial,
//	    ditraheat.WithRegulationMode(ditraheat.ModeTemporary),
//	    ditraheat.WithComfortDuration(3*time.Hour),
//	    ditraheat.WithLogger(slog.Default()),
//	)
//
// # Sessions
//
// The client signs in on first use and caches the session token. A 401
// response clears the token and is returned to the caller; the following
// call signs in again. Requests are never retried.
//
// # Temperatures
//
// The service exchanges temperatures as integer hundredths of a degree.
// The client accepts and returns degrees and rounds half away from zero when
// sending.
package ditraheat
