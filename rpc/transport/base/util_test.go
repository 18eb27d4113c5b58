package base

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
)

func TestFrames(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payloads := [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{7}, 1000)}

	go func() {
		for i, p := range payloads {
			if err := writeFrame(client, uint64(i+1), uint64(100+i), p); err != nil {
				t.Errorf("writeFrame failed: %v", err)
				return
			}
		}
	}()

	// a small buffer forces an allocation for the large payload
	buf := make([]byte, 64)
	for i, want := range payloads {
		shardID, requestID, data, err := readFrame(server, buf)
		if err != nil {
			t.Fatalf("readFrame failed: %v", err)
		}
		if shardID != uint64(i+1) || requestID != uint64(100+i) {
			t.Errorf("Expected shard %d request %d, got %d %d", i+1, 100+i, shardID, requestID)
		}
		if !bytes.Equal(data, want) {
			t.Errorf("Expected payload of %d bytes, got %d", len(want), len(data))
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[16:20], maxFrameSize+1)
	go func() { _, _ = client.Write(header) }()

	if _, _, _, err := readFrame(server, nil); err == nil {
		t.Errorf("Expected an error for an oversized frame")
	}
}
