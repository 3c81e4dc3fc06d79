package chtljsgen

// prelude defines the helpers lowered CHTL-JS calls. Element methods live on
// EventTarget.prototype; the same names on window act on document.
const prelude = `(function () {
  if (window.__chtl) { return; }
  window.__chtl = true;
  var proto = EventTarget.prototype;
  proto.chtlListen = function (handlers) {
    for (var type in handlers) { this.addEventListener(type, handlers[type]); }
    return this;
  };
  proto.chtlDelegate = function (opts) {
    var root = this;
    var targets = [].concat(opts.target || []);
    Object.keys(opts).forEach(function (type) {
      if (type === 'target') { return; }
      root.addEventListener(type, function (event) {
        targets.forEach(function (target) {
          var hit = typeof target === 'string' ? event.target.closest(target) : (target.contains(event.target) ? target : null);
          if (hit && root.contains(hit)) { opts[type].call(hit, event); }
        });
      });
    });
    return this;
  };
  proto.chtlAnimate = function (opts) {
    return window.chtlAnimate(Object.assign({ target: this }, opts));
  };
  window.chtlAnimate = function (opts) {
    var targets = [].concat(opts.target || []);
    var frames = [];
    if (opts.begin) { frames.push(Object.assign({ offset: 0 }, opts.begin)); }
    (opts.when || []).forEach(function (f) {
      var frame = Object.assign({}, f);
      frame.offset = f.at;
      delete frame.at;
      frames.push(frame);
    });
    if (opts.end) { frames.push(Object.assign({ offset: 1 }, opts.end)); }
    var timing = { duration: opts.duration || 300, easing: opts.easing || 'linear', iterations: opts.loop || 1, direction: opts.direction || 'normal', delay: opts.delay || 0 };
    return targets.map(function (el) {
      var anim = el.animate(frames, timing);
      if (opts.callback) { anim.onfinish = opts.callback; }
      return anim;
    });
  };
  proto.chtlNeverAway = function (fns) { return window.chtlNeverAway(fns); };
  window.chtlNeverAway = function (fns) {
    var table = {};
    Object.keys(fns).forEach(function (key) { table[key] = fns[key]; });
    return table;
  };
  proto.chtlPrintMylove = function (opts) { return window.chtlPrintMylove(opts); };
  window.chtlPrintMylove = function (opts) {
    var img = new Image();
    img.src = opts.url;
    var width = opts.width || 80, height = opts.height || 40;
    var chars = opts.mode === 'pixel' ? ['█', ' '] : ['@', '#', '*', '+', '=', '-', ':', '.', ' '];
    return new Promise(function (resolve, reject) {
      img.onerror = reject;
      img.onload = function () {
        var canvas = document.createElement('canvas');
        canvas.width = width;
        canvas.height = height;
        var ctx = canvas.getContext('2d');
        ctx.drawImage(img, 0, 0, width, height);
        var data = ctx.getImageData(0, 0, width, height).data;
        var out = '';
        for (var y = 0; y < height; y++) {
          for (var x = 0; x < width; x++) {
            var p = (y * width + x) * 4;
            var lum = (0.299 * data[p] + 0.587 * data[p + 1] + 0.114 * data[p + 2]) / 255;
            out += chars[Math.min(chars.length - 1, Math.floor(lum * chars.length))];
          }
          out += '\n';
        }
        console.log(out);
        resolve(out);
      };
    });
  };
  window.chtlListen = function (handlers) { return proto.chtlListen.call(document, handlers); };
  window.chtlDelegate = function (opts) { return proto.chtlDelegate.call(document, opts); };
})();`
