package server

// Option is a functional option for the server.
type Option func(*Server)

// Version sets the version of the server.
func Version(v string) Option {
	return func(s *Server) { s.version = v }
}

// Debug enables verbose request logging.
func Debug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// Health enables the health check endpoint.
func Health(health bool) Option {
	return func(s *Server) { s.health = health }
}
