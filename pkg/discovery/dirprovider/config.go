package dirprovider

// Descriptor defines the matching rules of a single endpoint. The endpoint
// name and method are carried by the file name, "<name>.<method>.yaml", and
// its URL path by the file's location under the spec root.
type Descriptor struct {
	Status       int     `yaml:"status"`
	Response     any     `yaml:"response"`
	ResponseFile string  `yaml:"response_file"`
	Matches      []Match `yaml:"matches"`
}

// Match specifies a single matching rule of an endpoint.
type Match struct {
	// Params contains query parameters the request must carry.
	Params map[string]string `yaml:"params"`

	// Request is the expected JSON body of the request, inline.
	// RequestFile points to a fixture file with the same, relative
	// to the descriptor. At most one of the two may be set.
	Request     any    `yaml:"request"`
	RequestFile string `yaml:"request_file"`

	// Response is the JSON body to reply with, inline. ResponseFile
	// points to a fixture file with the same, relative to the
	// descriptor. At most one of the two may be set.
	Response     any    `yaml:"response"`
	ResponseFile string `yaml:"response_file"`

	// Status overrides the endpoint's default status code.
	Status int `yaml:"status"`
}
