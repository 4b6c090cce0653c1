package routes

import "fmt"

func ExampleNew() {
	r, _ := New([]int{0, 4, 3, 1})

	fmt.Println(r)

	// Output:
	// 0 -> 4 -> 3 -> 1
}

func ExampleRoute_Advance() {
	r, _ := New([]int{2, 0, 3})

	fmt.Println(r.At())
	fmt.Println(r.Advance()) // valid
	fmt.Println(r.At())
	fmt.Println(r.Advance()) // valid
	fmt.Println(r.At())
	fmt.Println(r.Advance()) // invalid: already at destination
	fmt.Println(r.Done())

	// Output:
	// 2
	// true
	// 0
	// true
	// 3
	// false
	// true
}

func ExampleRoute_Next() {
	r, _ := New([]int{5, 1})

	fmt.Println(r.Next())
	r.Advance()
	fmt.Println(r.Next())

	// Output:
	// 1 true
	// 0 false
}

func ExampleRoute_NextRoad() {
	r, _ := WithRoads([]int{0, 2, 1}, []int{4, 7})

	fmt.Println(r.NextRoad())
	r.Advance()
	fmt.Println(r.NextRoad())
	r.Advance()
	fmt.Println(r.NextRoad())

	// Output:
	// 4 true
	// 7 true
	// 0 false
}

func ExampleRoute_Remaining() {
	r, _ := WithRoads([]int{0, 2, 3, 1}, []int{4, 7, 2})
	r.Advance()

	fmt.Println(r.Remaining())
	fmt.Println(r.RemainingRoads())

	// Output:
	// [2 3 1]
	// [7 2]
}

func ExampleRoute_single() {
	r, _ := New([]int{6})

	fmt.Println(r.At())
	fmt.Println(r.Done())
	fmt.Println(r.Advance())

	// Output:
	// 6
	// true
	// false
}

func ExampleResume() {
	r, _ := Resume([]int{0, 2, 3, 1}, []int{4, 7, 2}, 2)

	fmt.Println(r.At())
	fmt.Println(r.NextRoad())
	fmt.Println(r.Done())

	// Output:
	// 3
	// 2 true
	// false
}
