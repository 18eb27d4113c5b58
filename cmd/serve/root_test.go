package serve

import (
	"testing"

	"github.com/ValentinKolb/tKV/rpc/common"
)

func TestParseShards(t *testing.T) {
	shards, err := ParseShards("1=maple, 2 = bolt")
	if err != nil {
		t.Fatalf("ParseShards failed: %v", err)
	}
	want := []common.ServerShard{{ShardID: 1, Engine: common.EngineMaple}, {ShardID: 2, Engine: common.EngineBolt}}
	if len(shards) != len(want) {
		t.Fatalf("Expected %d shards, got %v", len(want), shards)
	}
	for i := range want {
		if shards[i] != want[i] {
			t.Errorf("Expected %v, got %v", want[i], shards[i])
		}
	}

	for _, invalid := range []string{"1", "x=maple", "1=redis", "1=maple,1=bolt", ""} {
		if _, err := ParseShards(invalid); err == nil {
			t.Errorf("Expected an error for %q", invalid)
		}
	}
}
