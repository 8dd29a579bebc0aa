package codec

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavesenterprise/wevm/types"
)

// MockMemory is a fixed-size linear memory for testing purposes.
type MockMemory struct {
	Data []byte
}

func (m *MockMemory) Write(offset uint32, data []byte) bool {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(m.Data)) {
		return false
	}
	copy(m.Data[offset:end], data)
	return true
}

func TestDeserializeParams(t *testing.T) {
	input := []byte{
		0, 4, 0, 8, 116, 101, 115, 116, 95, 107, 101, 121, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 8,
		116, 101, 115, 116, 95, 107, 101, 121, 1, 1, 0, 8, 116, 101, 115, 116, 95, 107, 101,
		121, 2, 0, 0, 0, 10, 116, 101, 115, 116, 95, 118, 97, 108, 117, 101, 0, 8, 116, 101,
		115, 116, 95, 107, 101, 121, 3, 0, 0, 0, 10, 116, 101, 115, 116, 95, 118, 97, 108, 117,
		101,
	}
	mem := &MockMemory{Data: make([]byte, 1000)}
	offset := uint32(100)

	params, err := DeserializeParams(input, mem, &offset)
	require.NoError(t, err)
	require.Len(t, params, 6)
	require.Equal(t, "1", params[0])
	require.Equal(t, "1", params[1])

	for _, i := range []int{2, 4} {
		off, err := strconv.Atoi(params[i])
		require.NoError(t, err)
		n, err := strconv.Atoi(params[i+1])
		require.NoError(t, err)
		require.Equal(t, testValue, mem.Data[off:off+n])
	}
	require.Equal(t, uint32(120), offset)
}

func TestDeserializeParamsEmpty(t *testing.T) {
	offset := uint32(7)
	params, err := DeserializeParams(nil, &MockMemory{}, &offset)
	require.NoError(t, err)
	require.Empty(t, params)
	require.Equal(t, uint32(7), offset)

	params, err = DeserializeParams([]byte{0, 0}, &MockMemory{}, &offset)
	require.NoError(t, err)
	require.Empty(t, params)
}

func TestDeserializeParamsErrors(t *testing.T) {
	offset := uint32(0)
	_, err := DeserializeParams([]byte{0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, &MockMemory{}, &offset)
	require.True(t, types.Is(err, types.FailedDeserialize))

	var list ParameterList
	list.Push(BinaryValue(testValue))
	mem := &MockMemory{Data: make([]byte, 8)}
	_, err = DeserializeParams(list.Bytes(), mem, &offset)
	require.True(t, types.Is(err, types.MemoryError))
}

func TestParameterList(t *testing.T) {
	var list ParameterList
	require.Equal(t, []byte{0, 0}, list.Bytes())

	values := []Value{IntegerValue(-5), BooleanValue(0), BinaryValue(testValue), StringValue(testKey)}
	for _, v := range values {
		list.Push(v)
	}
	require.Equal(t, 4, list.Len())
	require.Equal(t, SerializeSlice(values), list.Bytes())

	mem := &MockMemory{Data: make([]byte, 64)}
	offset := uint32(0)
	params, err := DeserializeParams(list.Bytes(), mem, &offset)
	require.NoError(t, err)
	require.Equal(t, []string{"-5", "0", "0", "10", "10", "8"}, params)
	require.Equal(t, "test_valuetest_key", string(mem.Data[:offset]))

	list.Reset()
	require.Equal(t, 0, list.Len())
	require.Equal(t, []byte{0, 0}, list.Bytes())
}
