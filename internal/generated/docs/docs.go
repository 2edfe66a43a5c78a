// Package docs registers the OpenAPI document with swag so that the
// echo-swagger UI served at /swagger/* can load it. Import it for its side
// effect.
package docs

import (
	"encoding/json"

	"github.com/swaggo/swag"

	"tracker/internal/generated/servers"
)

type document struct{}

// ReadDoc renders the OpenAPI document as JSON.
func (document) ReadDoc() string {
	swagger, err := servers.GetSwagger()
	if err != nil {
		return errorDoc(err)
	}
	raw, err := swagger.MarshalJSON()
	if err != nil {
		return errorDoc(err)
	}
	return string(raw)
}

func errorDoc(err error) string {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(raw)
}

func init() {
	swag.Register(swag.Name, document{})
}
