package model

// simplePlatforms drop the option suffix from their title when built "opt".
var simplePlatforms = map[string]bool{
	"gecko-decision":     true,
	"lint":               true,
	"taskcluster-images": true,
	"source-test":        true,
	"release":            true,
	"docker-images":      true,
}

// platformNames maps raw platform identifiers to display names.
var platformNames = map[string]string{
	"linux32":            "Linux",
	"linux64":            "Linux x64",
	"linux64-qr":         "Linux x64 WebRender",
	"osx-10-10":          "OS X 10.10",
	"osx-10-14":          "OS X 10.14",
	"osx-cross":          "OS X Cross Compiled",
	"windows7-32":        "Windows 7",
	"windows10-64":       "Windows 10 x64",
	"windows2012-32":     "Windows 2012",
	"windows2012-64":     "Windows 2012 x64",
	"android-4-0-armv7":  "Android 4.0 API16+",
	"android-api-16":     "Android 4.0 API16+",
	"android-em-7-0-x86": "Android 7.0 x86",
	"android-hw-p2-8-0":  "Android 8.0 Pixel2",
	"gecko-decision":     "Gecko Decision Task",
	"lint":               "Linting",
	"taskcluster-images": "Docker Images",
	"source-test":        "Source-Level Tests",
	"docker-images":      "Docker Images",
	"release":            "Release",
}

// DisplayName returns the human name for the platform.
func (p *Platform) DisplayName() string {
	if name, ok := platformNames[p.Name]; ok {
		return name
	}
	return p.Name
}

// Title is the display name plus option, e.g. "Linux x64 debug".
func (p *Platform) Title() string {
	name := p.DisplayName()
	if simplePlatforms[p.Name] && p.Option == "opt" {
		return name
	}
	if p.Option == "" {
		return name
	}
	return name + " " + p.Option
}
