/*

Mirrorstab computes the electromechanical stability of an
electrostatically actuated membrane mirror. The membrane deflection is
expanded in the Bessel eigenfunctions of the clamped disk, the electrode
array voltages are computed self-consistently for a given shape, and the
operating point is stable if the smallest eigenvalue of the Omega
stiffness matrix is positive.

The basic usage of mirrorstab looks like this:

	mirrorstab stability

, this will print the minimum eigenvalue of the reference device with a
flat membrane. A device file changes the device and the shape:

	mirrorstab --config device.ini run --dump matrices.txt

Parameter sweeps vary one quantity and tabulate the eigenvalues:

	mirrorstab sweep peak --low -8 --high 8 --step 1 --out peak.txt --plot peak.png

To see all the options run:

	mirrorstab --help

*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	"bitbucket.org/dmlab/mirrorstab/tabular"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("mirrorstab")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are the loggers whose level is set by --loglevel.
var modules = []string{
	"mirrorstab", "experiment", "stability", "coupling", "electrode",
	"membrane", "eigen", "bessel", "tabular", "checkpoint", "config",
}

// command-line options
var (
	// application
	app = kingpin.New("mirrorstab", "membrane mirror stability analysis").Version(version)

	// device
	configF = app.Flag("config", "device file (ini), reference device by default").ExistingFile()

	// technical
	nThreads   = app.Flag("nt", "number of threads to use").Int()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	outF        = app.Flag("out", "write results as tab-delimited text to a file").String()
	dumpF       = app.Flag("dump", "write diagnostic matrices to a file").String()
	plotF       = app.Flag("plot", "plot sweep results to a file (png, svg or pdf)").String()
	checkpointF = app.Flag("checkpoint", "checkpoint database for resumable sweeps").String()
	jsonF       = app.Flag("json", "write json output to a file").String()

	// commands
	pingCmd      = app.Command("ping", "build the reference device and report")
	createCmd    = app.Command("create", "write the device file")
	stabilityCmd = app.Command("stability", "print the minimum Omega eigenvalue")

	runCmd  = app.Command("run", "run the stability computation, dumping every matrix")
	runFast = runCmd.Flag("fast", "skip the integral coupling matrix").Bool()

	sweepCmd  = app.Command("sweep", "vary one parameter and tabulate the eigenvalues")
	sweepKind = sweepCmd.Arg("kind", "swept parameter "+
		"(peak: peak deformation in um, vt: top electrode voltage in V, "+
		"gap: both electrode distances in um, ampl: eigenfunction coefficient)").
		Required().Enum("peak", "vt", "gap", "ampl")
	sweepLow  = sweepCmd.Flag("low", "first value").Required().Float64()
	sweepHigh = sweepCmd.Flag("high", "last value").Required().Float64()
	sweepStep = sweepCmd.Flag("step", "step").Required().Float64()
	sweepJ    = sweepCmd.Flag("j", "eigenfunction of the ampl sweep").Default("0").Int()
	sweepName = sweepCmd.Flag("name", "sweep name, used as checkpoint key").String()
	sweepFull = sweepCmd.Flag("full", "also integrate the coupling matrix at every point").Bool()

	smallCmd    = app.Command("smallamp", "small amplitude stability over a voltage grid")
	smallVaLow  = smallCmd.Flag("valow", "lowest array voltage").Default("0").Float64()
	smallVaHigh = smallCmd.Flag("vahigh", "highest array voltage").Default("30").Float64()
	smallVtLow  = smallCmd.Flag("vtlow", "lowest top electrode voltage").Default("0").Float64()
	smallVtHigh = smallCmd.Flag("vthigh", "highest top electrode voltage").Default("30").Float64()
	smallPoints = smallCmd.Flag("points", "grid points per axis").Default("20").Int()

	planCmd  = app.Command("plan", "run the experiments of a plan file (json5)")
	planFile = planCmd.Arg("file", "plan file").Required().ExistingFile()

	validateCmd  = app.Command("validate", "basis, eigenvector and coupling self-tests")
	validateNR   = validateCmd.Flag("nr", "radial quadrature points of the Gram matrix").Default("64").Int()
	validateNPhi = validateCmd.Flag("nphi", "angular points of the Gram matrix").Default("32").Int()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range modules {
		logging.SetLevel(level, m)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	runtime.GOMAXPROCS(*nThreads)

	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.\n", effectiveNThreads)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// diagnostic matrices
	var sink tabular.Sink = tabular.Discard
	var dump *tabular.Log
	if *dumpF != "" {
		f, err := os.Create(*dumpF)
		if err != nil {
			log.Error("Error creating dump file:", err)
		} else {
			defer f.Close()
			dump = tabular.NewLog(f)
			sink = dump
		}
	}

	// results
	var out io.Writer = os.Stdout
	if *outF != "" {
		f, err := os.Create(*outF)
		if err != nil {
			log.Error("Error creating output file:", err)
		} else {
			defer f.Close()
			out = f
		}
	}

	startTime := time.Now()
	summary, err := run(command, sink, out)
	if err != nil {
		log.Fatal(err)
	}
	if dump != nil && dump.Err() != nil {
		log.Error("Diagnostic dump is incomplete:", dump.Err())
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()
	summary.NThreads = effectiveNThreads
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Command = command

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
