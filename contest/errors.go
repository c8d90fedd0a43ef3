package contest

import "errors"

var ErrNoProblemsAvailable = errors.New("no problems available")
