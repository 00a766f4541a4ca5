package models

var commonRatios = []string{"21:9", "16:9", "4:3", "3:2", "1:1", "2:3", "3:4", "9:16", "9:21"}
var videoRatios = []string{"16:9", "9:16", "1:1"}

var builtinFamilies = []Family{
	// Image
	{Name: "flux-pro", Prefixes: []string{"fal-ai/flux-pro"}, Category: CategoryImage, Mode: ModeRun},
	{Name: "flux", Prefixes: []string{"fal-ai/flux/", "fal-ai/flux-lora", "fal-ai/flux-kontext"}, Category: CategoryImage, Mode: ModeRun},
	{Name: "imagen", Prefixes: []string{"fal-ai/imagen4", "fal-ai/imagen3"}, Category: CategoryImage, Mode: ModeRun},
	{Name: "stable-diffusion", Prefixes: []string{"fal-ai/stable-diffusion-v3", "fal-ai/fast-sdxl"}, Category: CategoryImage, Mode: ModeRun},
	{Name: "dreamina", Prefixes: []string{"fal-ai/bytedance/dreamina/"}, Category: CategoryImage, Mode: ModeRun},
	{Name: "ideogram", Prefixes: []string{"fal-ai/ideogram/"}, Category: CategoryImage, Mode: ModeRun},
	{Name: "luma-photon", Prefixes: []string{"fal-ai/luma-photon"}, Category: CategoryImage, Mode: ModeRun},
	{Name: "lora-training", Prefixes: []string{
		"fal-ai/flux-lora-fast-training",
		"fal-ai/flux-lora-portrait-trainer",
		"fal-ai/hunyuan-video-lora-training",
	}, Markers: []string{"lora-training", "lora-trainer"}, Category: CategoryImage, Mode: ModeSubscribe},
	{Name: "minimax-image", Prefixes: []string{"fal-ai/minimax/image"}, Category: CategoryImage, Mode: ModeSubscribe},

	// Video
	{Name: "veo3", Prefixes: []string{"fal-ai/veo3"}, Category: CategoryVideo, Mode: ModeSubscribe},
	{Name: "kling", Prefixes: []string{"fal-ai/kling-video/"}, Category: CategoryVideo, Mode: ModeSubscribe},
	{Name: "luma-ray-2", Prefixes: []string{"fal-ai/luma-dream-machine/ray-2"}, Category: CategoryVideo, Mode: ModeSubscribe},
	{Name: "minimax-video", Prefixes: []string{"fal-ai/minimax/video-01", "fal-ai/minimax/hailuo", "fal-ai/minimax-video"}, Category: CategoryVideo, Mode: ModeSubscribe},
	{Name: "minimax", Prefixes: []string{"fal-ai/minimax"}, Markers: []string{"minimax"}, Category: CategoryVideo, Mode: ModeSubscribe},
	{Name: "hunyuan", Prefixes: []string{"fal-ai/hunyuan-video"}, Category: CategoryVideo, Mode: ModeSubscribe},
	{Name: "pixverse", Prefixes: []string{"fal-ai/pixverse/"}, Category: CategoryVideo, Mode: ModeSubscribe},
	{Name: "seedance", Prefixes: []string{"fal-ai/bytedance/seedance/"}, Category: CategoryVideo, Mode: ModeRun},

	// Audio
	{Name: "stable-audio", Prefixes: []string{"fal-ai/stable-audio", "cassetteai/"}, Category: CategoryAudio, Mode: ModeRun},
	{Name: "minimax-music", Prefixes: []string{"fal-ai/minimax-music", "fal-ai/minimax/music"}, Category: CategoryAudio, Mode: ModeSubscribe},
	{Name: "mmaudio", Prefixes: []string{"fal-ai/mmaudio-v2"}, Category: CategoryAudio, Mode: ModeRun},

	// Voiceover
	{Name: "elevenlabs", Prefixes: []string{"fal-ai/elevenlabs/"}, Category: CategoryVoiceover, Mode: ModeRun},
	{Name: "minimax-speech", Prefixes: []string{"fal-ai/minimax/speech", "fal-ai/minimax/voice-clone", "fal-ai/minimax/voice-design"}, Category: CategoryVoiceover, Mode: ModeSubscribe},
	{Name: "playht", Prefixes: []string{"fal-ai/playht/"}, Category: CategoryVoiceover, Mode: ModeRun},
	{Name: "f5-tts", Prefixes: []string{"fal-ai/f5-tts"}, Category: CategoryVoiceover, Mode: ModeRun},
}

var builtinCatalog = []Entry{
	{EndpointID: "fal-ai/flux-pro/v1.1-ultra", Name: "FLUX1.1 [pro] ultra", Family: "flux-pro", Capabilities: Capabilities{
		SupportsStyleReference: true, MaxStyleStrength: 1, SupportedAspectRatios: commonRatios,
	}},
	{EndpointID: "fal-ai/flux-pro/v1.1", Name: "FLUX1.1 [pro]", Family: "flux-pro", Capabilities: Capabilities{
		SupportedAspectRatios: commonRatios,
	}},
	{EndpointID: "fal-ai/flux-pro/kontext", Name: "FLUX.1 Kontext [pro]", Family: "flux-pro", Capabilities: Capabilities{
		SupportsStyleReference: true, MaxStyleStrength: 1, SupportedAspectRatios: commonRatios,
	}},
	{EndpointID: "fal-ai/flux/dev", Name: "FLUX.1 [dev]", Family: "flux"},
	{EndpointID: "fal-ai/flux/schnell", Name: "FLUX.1 [schnell]", Family: "flux"},
	{EndpointID: "fal-ai/flux-lora", Name: "FLUX.1 [dev] with LoRAs", Family: "flux"},
	{EndpointID: "fal-ai/imagen4/preview", Name: "Imagen 4", Family: "imagen", Capabilities: Capabilities{
		SupportedAspectRatios: []string{"1:1", "16:9", "9:16", "3:4", "4:3"},
	}},
	{EndpointID: "fal-ai/stable-diffusion-v35-large", Name: "Stable Diffusion 3.5 Large", Family: "stable-diffusion"},
	{EndpointID: "fal-ai/bytedance/dreamina/v3.1/text-to-image", Name: "Dreamina 3.1", Family: "dreamina"},
	{EndpointID: "fal-ai/ideogram/v3", Name: "Ideogram 3.0", Family: "ideogram", Capabilities: Capabilities{
		SupportsStylePresets: true, SupportsStyleReference: true, SupportedAspectRatios: commonRatios,
	}},
	{EndpointID: "fal-ai/luma-photon", Name: "Luma Photon", Family: "luma-photon", Capabilities: Capabilities{
		SupportedAspectRatios: commonRatios,
	}},
	{EndpointID: "fal-ai/flux-lora-fast-training", Name: "FLUX LoRA fast training", Family: "lora-training"},

	{EndpointID: "fal-ai/veo3", Name: "Veo 3", Family: "veo3", Capabilities: Capabilities{SupportedAspectRatios: videoRatios}},
	{EndpointID: "fal-ai/veo3/fast", Name: "Veo 3 Fast", Family: "veo3", Capabilities: Capabilities{SupportedAspectRatios: videoRatios}},
	{EndpointID: "fal-ai/kling-video/v2.1/master/text-to-video", Name: "Kling 2.1 Master (text)", Family: "kling", Capabilities: Capabilities{SupportedAspectRatios: videoRatios}},
	{EndpointID: "fal-ai/kling-video/v2.1/master/image-to-video", Name: "Kling 2.1 Master (image)", Family: "kling"},
	{EndpointID: "fal-ai/luma-dream-machine/ray-2", Name: "Luma Ray 2", Family: "luma-ray-2", Capabilities: Capabilities{SupportedAspectRatios: videoRatios}},
	{EndpointID: "fal-ai/luma-dream-machine/ray-2-flash", Name: "Luma Ray 2 Flash", Family: "luma-ray-2", Capabilities: Capabilities{SupportedAspectRatios: videoRatios}},
	{EndpointID: "fal-ai/minimax/hailuo-02/standard/image-to-video", Name: "MiniMax Hailuo 02", Family: "minimax-video"},
	{EndpointID: "fal-ai/minimax/video-01", Name: "MiniMax Video 01", Family: "minimax-video"},
	{EndpointID: "fal-ai/hunyuan-video", Name: "Hunyuan Video", Family: "hunyuan"},
	{EndpointID: "fal-ai/pixverse/v4.5/text-to-video", Name: "PixVerse 4.5", Family: "pixverse", Capabilities: Capabilities{SupportedAspectRatios: videoRatios}},
	{EndpointID: "fal-ai/bytedance/seedance/v1/pro/text-to-video", Name: "Seedance 1.0 Pro", Family: "seedance"},

	{EndpointID: "fal-ai/stable-audio", Name: "Stable Audio Open", Family: "stable-audio"},
	{EndpointID: "cassetteai/music-generator", Name: "CassetteAI Music", Family: "stable-audio"},
	{EndpointID: "fal-ai/mmaudio-v2", Name: "MMAudio V2", Family: "mmaudio"},

	{EndpointID: "fal-ai/elevenlabs/tts/multilingual-v2", Name: "ElevenLabs Multilingual v2", Family: "elevenlabs"},
	{EndpointID: "fal-ai/minimax/speech-02-hd", Name: "MiniMax Speech 02 HD", Family: "minimax-speech"},
	{EndpointID: "fal-ai/minimax/voice-clone", Name: "MiniMax Voice Clone", Family: "minimax-speech"},
	{EndpointID: "fal-ai/playht/tts/v3", Name: "PlayHT v3", Family: "playht"},
	{EndpointID: "fal-ai/f5-tts", Name: "F5 TTS", Family: "f5-tts"},
}

// Short names accepted wherever a model id is expected.
var builtinAliases = map[string]string{
	"flux-dev":     "fal-ai/flux/dev",
	"flux-schnell": "fal-ai/flux/schnell",
	"flux-pro":     "fal-ai/flux-pro/v1.1-ultra",
	"veo3":         "fal-ai/veo3",
	"stable-audio": "fal-ai/stable-audio",
}
