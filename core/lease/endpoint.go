package lease

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ServiceType is the kind of rack service announced through the hostname
// of a lease entry
type ServiceType string

const (
	// ServicePSME is the pooled system management engine running on
	// tray controllers ("rsa-tc")
	ServicePSME ServiceType = "psme"

	// ServiceStorage is the iSCSI storage service
	ServiceStorage ServiceType = "storage"
)

type serviceRecord struct {
	service ServiceType
	port    int
}

// serviceRecords maps lower-cased hostnames to the service they announce
var serviceRecords = map[string]serviceRecord{
	"rsa-tc": {ServicePSME, 8888},
	"iscsi":  {ServiceStorage, 7778},
}

// Endpoint is the REST endpoint of a service discovered through the
// lease table
type Endpoint struct {
	Service  ServiceType
	URL      *url.URL
	MAC      string
	Location string
}

// Endpoints returns the service endpoints of all entries that announce a
// known service type with a valid IP address. Other entries are skipped.
func Endpoints(t Table) []Endpoint {
	var endpoints []Endpoint
	for _, e := range t {
		rec, ok := serviceRecords[strings.ToLower(e.Hostname)]
		if !ok {
			continue
		}

		if net.ParseIP(e.IP) == nil {
			continue
		}

		endpoints = append(endpoints, Endpoint{
			Service: rec.service,
			URL: &url.URL{
				Scheme: "http",
				Host:   net.JoinHostPort(e.IP, fmt.Sprint(rec.port)),
				Path:   "/rest/v1",
			},
			MAC:      e.MAC,
			Location: e.Location,
		})
	}

	return endpoints
}
