package geolib_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/9seconds/iplocation/geolib"
	"github.com/stretchr/testify/suite"
)

type BinarySearchTestSuite struct {
	suite.Suite
}

func (suite *BinarySearchTestSuite) TestEmpty() {
	_, ok := geolib.BinarySearch([]uint32{}, 10, geolib.CmpUint32)

	suite.False(ok)
}

func (suite *BinarySearchTestSuite) TestKnownValues() {
	list := []uint32{10, 20, 30}
	data := map[uint32]int{
		10: 0,
		15: 0,
		20: 1,
		29: 1,
		30: 2,
		35: 2,
	}

	for k, v := range data {
		idx, ok := geolib.BinarySearch(list, k, geolib.CmpUint32)

		suite.True(ok)
		suite.Equal(v, idx)
	}

	_, ok := geolib.BinarySearch(list, 5, geolib.CmpUint32)

	suite.False(ok)
}

func (suite *BinarySearchTestSuite) TestGreatestLessOrEqual() {
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		seen := map[uint32]bool{}
		list := []uint32{}

		size := 1 + rnd.Intn(50)

		for j := 0; j < size; j++ {
			v := uint32(rnd.Intn(1000))
			if !seen[v] {
				seen[v] = true
				list = append(list, v)
			}
		}

		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })

		target := uint32(rnd.Intn(1100))
		idx, ok := geolib.BinarySearch(list, target, geolib.CmpUint32)

		if target < list[0] {
			suite.False(ok)

			continue
		}

		suite.True(ok)
		suite.LessOrEqual(list[idx], target)

		if idx+1 < len(list) {
			suite.Greater(list[idx+1], target)
		}
	}
}

func (suite *BinarySearchTestSuite) TestUint128() {
	list := []geolib.Uint128{
		{Hi: 0, Lo: 100},
		{Hi: 1, Lo: 0},
		{Hi: 1, Lo: 50},
	}

	idx, ok := geolib.BinarySearch(list, geolib.Uint128{Hi: 0, Lo: 1 << 63}, geolib.CmpUint128)

	suite.True(ok)
	suite.Equal(0, idx)

	idx, ok = geolib.BinarySearch(list, geolib.Uint128{Hi: 2}, geolib.CmpUint128)

	suite.True(ok)
	suite.Equal(2, idx)

	_, ok = geolib.BinarySearch(list, geolib.Uint128{Lo: 99}, geolib.CmpUint128)

	suite.False(ok)
}

func TestBinarySearch(t *testing.T) {
	suite.Run(t, &BinarySearchTestSuite{})
}
