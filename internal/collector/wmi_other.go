//go:build !windows

package collector

// unsupportedQuerier fails every query; there is no WMI outside Windows.
type unsupportedQuerier struct{}

func newPlatformQuerier() querier {
	return unsupportedQuerier{}
}

func (unsupportedQuerier) Query(string, interface{}) error {
	return ErrUnsupportedPlatform
}

func (unsupportedQuerier) QueryNamespace(string, interface{}, string) error {
	return ErrUnsupportedPlatform
}
