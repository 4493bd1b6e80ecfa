// Package cabinetclient provides the primary entry point for constructing a
// Cabinet API client that implements the cabinet.Client interface.
//
// It layers configuration, the retrying HTTP executor and bearer token
// management on top of the types defined in the cabinet package. Most
// applications build a client with New, then create one typed resource
// client per entity with NewResourceClient.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
//	  "github.com/kaleido-biosciences/cabinet-client/pkg/cabinetclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := cabinetclient.New(ctx, &cabinet.Config{
//	    BaseURL:  "https://cabinet.example.com/api/",
//	    Username: "svc-user",
//	    Password: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  plateMaps, err := cabinetclient.NewResourceClient[cabinet.PlateMap](cli, "plate-maps")
//	  if err != nil { log.Fatal(err) }
//
//	  first, err := plateMaps.FindFirstByName(ctx, "PM-0001")
//	  if err != nil { log.Fatal(err) }
//	  _ = first
//	}
//
// # Configuration files
//
// LoadConfig reads a YAML file such as
//
//	base_url: https://cabinet.example.com/api/
//	username: svc-user
//	retry_interval: 500ms
//	max_request_attempts: 3
//	token_cache:
//	  url: nats://localhost:4222
//
// and lets CABINET_* environment variables override any key, for example
// CABINET_PASSWORD or CABINET_TOKEN_CACHE_URL.
package cabinetclient
