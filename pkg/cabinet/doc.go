// Package cabinet provides types, interfaces, and helpers for working with the
// Cabinet resource API.
//
// # Overview
//
// The cabinet package defines the configuration, the error taxonomy, the
// query and URI builders, and the generic ResourceClient interface. A
// concrete implementation is provided by the cabinetclient package, which
// wires authentication, retries, and transport. Most consumers import
// cabinetclient to construct a client and then use the ResourceClient
// interface exposed here.
//
// Getting a client
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
//	  cli, err := cabinetclient.New(ctx, &cabinet.Config{
//	    BaseURL:  "https://cabinet.example.com/api/",
//	    Username: "svc-user",
//	    Password: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  plateMaps, err := cabinetclient.NewResourceClient[cabinet.PlateMap](cli, "plate-maps")
//	  if err != nil { log.Fatal(err) }
//
//	  found, err := plateMaps.FindByName(ctx, "baseline", cabinet.PageRequest{})
//	  if err != nil { log.Fatal(err) }
//	  _ = found
//	}
//
// # Queries and pagination
//
// Criteria lookups are expressed as an ordered FilterSpec. Each filter is
// rendered as field.operator=value, in insertion order, followed by page
// and size:
//
//	spec := cabinet.NewFilterSpec().
//	  Equals("name", "baa").
//	  Where("created", cabinet.OpGreaterThan, "2020-01-01")
//	maps, err := plateMaps.FindByFieldsWithOperators(ctx, spec, cabinet.Page(0, 50))
//
// The zero PageRequest asks for the first page with no practical size limit.
//
// # Errors
//
// Non-2xx responses are returned as *HTTPError. Responses that stayed at 502
// or 504 for every allowed attempt are returned as *RetriesExhaustedError.
// Failures to obtain a token are returned as *AuthenticationError. Helpers
// such as IsNotFound, IsRetriesExhausted and IsAuthenticationFailure make it
// easy to branch on them.
package cabinet
