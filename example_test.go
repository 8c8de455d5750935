package frametie_test

import (
	"context"
	"fmt"

	"github.com/e7canasta/frametie"
	"github.com/e7canasta/frametie/synthetic"
	"github.com/e7canasta/frametie/vdma"
)

// ExampleNew demonstrates assembling a buffered tie.
func ExampleNew() {
	mode := frametie.Mode{Width: 64, Height: 32, BitsPerPixel: 24, FrameRate: 100}

	stage, err := vdma.NewDoubleBuffer(mode)
	if err != nil {
		fmt.Println(err)
		return
	}

	eng, err := frametie.New(frametie.Config{
		Source: synthetic.NewPatternSource(),
		Sink:   synthetic.NewNullSink(),
		Stage:  stage,
		Mode:   mode,
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(eng.State())
	fmt.Println(eng.InputMode())
	// Output: idle
	// 64x32@100fps 24bpp
}

// ExampleEngine ties a synthetic pattern source to a capture sink and
// waits for the first frame to flow.
func ExampleEngine() {
	mode := frametie.Mode{Width: 64, Height: 32, BitsPerPixel: 24, FrameRate: 200}
	sink := synthetic.NewCaptureSink(8)

	eng, err := frametie.New(frametie.Config{
		Source: synthetic.NewPatternSource(),
		Sink:   sink,
		Mode:   mode,
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	if err := eng.Start(context.Background()); err != nil {
		fmt.Println(err)
		return
	}
	defer eng.Stop()

	frame := <-sink.Frames()
	fmt.Println(frame.Seq)
	fmt.Println(frame.Size() == mode.FrameSize())
	// Output: 1
	// true
}

// ExampleEngine_Pause demonstrates the pause and resume cycle.
func ExampleEngine_Pause() {
	mode := frametie.Mode{Width: 32, Height: 16, BitsPerPixel: 24, FrameRate: 200}
	sink := synthetic.NewCaptureSink(8)

	eng, err := frametie.New(frametie.Config{
		Source: synthetic.NewPatternSource(),
		Sink:   sink,
		Mode:   mode,
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		fmt.Println(err)
		return
	}
	<-sink.Frames()

	if err := eng.Pause(); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(eng.State())

	if err := eng.Start(ctx); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(eng.State())

	if err := eng.Stop(); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(eng.State())
	// Output: paused
	// running
	// stopped
}

// Example_fileMirror demonstrates tying a video file to an on-disk
// frame mirror.
//
// Note: This example requires a real video file to execute.
func Example_fileMirror() {
	// src, err := opencv.NewFileSource("testdata/clip.mp4")
	// if err != nil {
	// 	log.Fatal(err)
	// }
	// sink, err := mirror.NewSink(mirror.Config{Dir: "/tmp/frames", Format: "png"})
	// if err != nil {
	// 	log.Fatal(err)
	// }
	//
	// eng, err := frametie.New(frametie.Config{
	// 	Source: src,
	// 	Sink:   sink,
	// 	Mode:   frametie.DefaultMode,
	// })
	// if err != nil {
	// 	log.Fatal(err)
	// }
	//
	// if err := eng.Start(context.Background()); err != nil {
	// 	log.Fatal(err)
	// }
	// defer eng.Stop()
	//
	// // A transient read failure (end of file) rewinds the clip, so
	// // the mirror keeps filling until the engine is stopped.
	// time.Sleep(5 * time.Second)
	//
	// stats := eng.Stats()
	// log.Printf("mirrored %d frames at %.1f fps", stats.FramesCopied, stats.AverageFPS)
}
