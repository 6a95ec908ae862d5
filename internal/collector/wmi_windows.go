//go:build windows

package collector

import "github.com/yusufpapurcu/wmi"

// wmiQuerier issues WQL queries through COM.
type wmiQuerier struct{}

func newPlatformQuerier() querier {
	return wmiQuerier{}
}

func (wmiQuerier) Query(query string, dst interface{}) error {
	return wmi.Query(query, dst)
}

func (wmiQuerier) QueryNamespace(query string, dst interface{}, namespace string) error {
	return wmi.QueryNamespace(query, dst, namespace)
}
