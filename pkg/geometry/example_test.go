package geometry_test

import (
	"fmt"

	"github.com/matzehuels/fractal/pkg/geometry"
)

func ExampleGeometry_Classify() {
	p, err := geometry.VariantPlain.Partition()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	g, _ := geometry.New(200, 200, 160, p)

	for _, pt := range []geometry.Point{{X: 200, Y: 200}, {X: 300, Y: 200}, {X: 400, Y: 200}} {
		addr, ok := g.ClassifyPoint(pt)
		if !ok {
			fmt.Println("outside")
			continue
		}
		fmt.Println(addr)
	}
	// Output:
	// core/0
	// middle/0
	// outside
}

func ExampleGeometry_WedgeOutline() {
	p, _ := geometry.VariantPlain.Partition()
	g, _ := geometry.New(200, 200, 160, p)

	o, _ := g.WedgeOutline(geometry.Outer, 0)
	fmt.Println(o.PathData())
	// Output:
	// M 200.00 360.00 A 160.00 160.00 0 0 0 360.00 200.00 L 320.00 200.00 A 120.00 120.00 0 0 1 200.00 320.00 Z
}

func ExamplePartition_QuarterOf() {
	p, _ := geometry.VariantYear.Partition()

	// Middle sectors are months starting in March.
	for _, month := range []int{0, 9, 10} {
		q, _ := p.QuarterOf(geometry.Middle, month)
		fmt.Printf("month %d -> quarter %d\n", month, q)
	}
	// Output:
	// month 0 -> quarter 0
	// month 9 -> quarter 3
	// month 10 -> quarter 0
}
