package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/annel0/voxel-remesher/internal/vec"
)

// OBJOptions настраивает WriteOBJ
type OBJOptions struct {
	Oracle  mesher.Oracle // Если задан, грани ориентируются наружу
	Offset  vec.Vec3      // Прибавляется к каждой вершине (мировые координаты чанка)
	Comment string        // Строка заголовка "# ..."
}

// WriteOBJ пишет квады как Wavefront OBJ. Одинаковые вершины
// записываются один раз; каждая грань - четырёхугольник с нормалью.
func WriteOBJ(w io.Writer, quads []mesher.Quad, opts OBJOptions) error {
	bw := bufio.NewWriter(w)

	if opts.Comment != "" {
		fmt.Fprintf(bw, "# %s\n", opts.Comment)
	}
	fmt.Fprintf(bw, "# quads: %d\n", len(quads))

	vertexIndex := make(map[vec.Vec3]int)
	normalIndex := make(map[vec.Vec3]int)
	faces := make([][5]int, 0, len(quads)) // 4 вершины + нормаль

	for _, q := range quads {
		n := faceNormal(q, opts.Oracle)
		if opts.Oracle != nil {
			q = q.Oriented(opts.Oracle)
		}

		ni, ok := normalIndex[n]
		if !ok {
			ni = len(normalIndex) + 1
			normalIndex[n] = ni
			fmt.Fprintf(bw, "vn %d %d %d\n", n.X, n.Y, n.Z)
		}

		var face [5]int
		for i, c := range q.Corners() {
			p := c.Add(opts.Offset)
			vi, ok := vertexIndex[p]
			if !ok {
				vi = len(vertexIndex) + 1
				vertexIndex[p] = vi
				fmt.Fprintf(bw, "v %d %d %d\n", p.X, p.Y, p.Z)
			}
			face[i] = vi
		}
		face[4] = ni
		faces = append(faces, face)
	}

	for _, f := range faces {
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d %d//%d\n",
			f[0], f[4], f[1], f[4], f[2], f[4], f[3], f[4])
	}

	return bw.Flush()
}
