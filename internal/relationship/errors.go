package relationship

import "errors"

// errNoConnector is wrapped into a ConfigurationError when a row operation
// runs on an instance that was built without a database connector.
var errNoConnector = errors.New("relationship instance has no database connector")
