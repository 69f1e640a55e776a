package client

import (
	"fmt"

	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/zeebo/xxh3"
)

var (
	Logger = logger.GetLogger("rpc")
)

// shardFor maps a key to one of n endpoints
func shardFor(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxh3.HashString(key) % uint64(n))
}

// expectType checks the type of a reply
func expectType(cmd string, v resp.Value, types ...resp.Type) error {
	for _, t := range types {
		if v.Type == t {
			return nil
		}
	}
	return fmt.Errorf("%s: unexpected reply %s", cmd, v)
}

// asInt converts an integer reply
func asInt(cmd string, v resp.Value, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	if err := expectType(cmd, v, resp.TypeInteger); err != nil {
		return 0, err
	}
	return v.Int, nil
}

// asBool converts a 1/0 integer reply
func asBool(cmd string, v resp.Value, err error) (bool, error) {
	n, err := asInt(cmd, v, err)
	return n == 1, err
}

// asOK checks for a +OK reply
func asOK(cmd string, v resp.Value, err error) error {
	if err != nil {
		return err
	}
	if v.Type != resp.TypeSimpleString || v.Str != "OK" {
		return fmt.Errorf("%s: unexpected reply %s", cmd, v)
	}
	return nil
}
