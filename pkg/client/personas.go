package client

import (
	"fmt"

	"github.com/omnidb-project/omnidb/pkg/dialect"
)

// Driver is the driver suffix advertised in connect URIs.
const Driver = "omni"

// Persona makes the gateway present as a specific database product to a
// generic SQL toolkit. Personas differ only in backend name, display name
// and base dialect family; the adapter behavior is identical across all
// of them.
type Persona struct {
	// Name is the backend name used as the connect URI scheme.
	Name string

	// DisplayName is the human-readable product name.
	DisplayName string

	// Family is the base dialect the persona layers on.
	Family dialect.Dialect
}

// Personas is the fixed registry of database products the gateway can
// present as. The set is static at build time; there is no runtime
// discovery.
var Personas = []Persona{
	{Name: "postgresql", DisplayName: "PostgreSQL", Family: dialect.Postgres},
	{Name: "mssql", DisplayName: "Microsoft SQL Server", Family: dialect.TSQL},
	{Name: "mysql", DisplayName: "MySQL", Family: dialect.MySQL},
	{Name: "oracle", DisplayName: "Oracle", Family: dialect.Oracle},
	{Name: "sqlite", DisplayName: "SQLite", Family: dialect.SQLite},
	{Name: "druid", DisplayName: "Druid", Family: dialect.Generic},
	{Name: "firebolt", DisplayName: "Firebolt", Family: dialect.Generic},
}

// PersonaByName looks up a persona by backend name.
func PersonaByName(name string) (Persona, bool) {
	for _, p := range Personas {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// ConnectURI renders the URI a toolkit uses to reach the gateway at host
// (host:port) as this persona.
func (p Persona) ConnectURI(host string) string {
	return fmt.Sprintf("%s+%s://%s/", p.Name, Driver, host)
}
